// Command easydk is the operator-facing CLI: it drives pipelines,
// enumerates devices, and manages the model cache.
package main

import "github.com/cambricon/easydk-go/cmd/easydk/cmd"

func main() {
	cmd.Execute()
}
