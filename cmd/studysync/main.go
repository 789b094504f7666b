// Command studysync runs the StudySync sync engine.
package main

import (
	"os"

	"github.com/monalisamaguruwada102-web/studysync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
