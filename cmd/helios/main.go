// Command helios runs the rule-matching engine.
package main

import "github.com/helios-rules/helios/cmd/helios/cmd"

func main() {
	cmd.Execute()
}
