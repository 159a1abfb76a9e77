// Command aqi-server runs the assessment quality analysis service.
package main

import (
	"os"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
