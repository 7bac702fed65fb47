// Command estate-archive classifies OCR'd real-estate documents, matches them
// against the property registry and routes uncertain ones to manual review.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
