// Command yinkun serves and edits card configurations for the Yinkun
// dashboard.
package main

import "github.com/yinkun-ui/yinkun/internal/cli"

func main() {
	cli.Execute()
}
