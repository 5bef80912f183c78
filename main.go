// Command crashfs emulates sudden power loss on a block device for
// crash-consistency testing. See cmd/root.go for the verb list.
package main

import "github.com/crashfs/crashfs/cmd"

func main() {
	cmd.Execute()
}
