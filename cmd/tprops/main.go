// FILE: lixenwraith/properties/cmd/tprops/main.go
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
