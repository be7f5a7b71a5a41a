// Medsync CLI entry point
//
// Medsync keeps a field medical-reporting node usable without
// connectivity: local changes are queued durably and replayed against
// the remote authority once a link is available.
package main

import "github.com/jbctechsolutions/medsync/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
