// Command feedxctl performs administrative tasks against the FEEDX store:
// applying the schema, creating staff accounts and resetting passwords.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newCLI()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
