// Command riskctl is the operator CLI for the city risk service. It scores a
// city snapshot, produces advisories, checks a model manifest, and prints the
// feature schemas the model slots expect.
//
// Usage:
//
//	riskctl predict city.json --manifest models/manifest.yaml
//	riskctl advise indicators.json --rules-only
//	riskctl manifest models/manifest.yaml
//	riskctl schemas
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
