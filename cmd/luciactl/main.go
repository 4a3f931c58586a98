// Command luciactl inspects plan entitlements and workflow documents offline.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
