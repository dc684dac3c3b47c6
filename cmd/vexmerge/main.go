// Command vexmerge runs one reconciliation batch over scanner reports and VEX documents.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
