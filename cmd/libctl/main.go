// libctl 借书台运维命令行:建表、入库、借还、检索、库存核对、事件审计
//
//	libctl --config config/config.yaml migrate
//	libctl add-book --isbn 9780134190440 --title "The Go Programming Language" --quantity 3
//	libctl checkout 9780134190440 --first-name John --last-name Doe --email john@example.com
//	libctl checkin 9780134190440
//	libctl search --q go
//	libctl verify
//	libctl events
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
