// register.go wires health/linalg constructors into the health package's
// registration variable (NewDecomposerFunc). This init() runs when any package
// imports health/linalg, breaking the import cycle between health/ (interface
// owner) and health/linalg/ (implementation). Test code in package health uses
// linalg_import_test.go for the blank import.
package linalg

import "github.com/sensorflow/sensorflow/health"

func init() {
	health.NewDecomposerFunc = NewDecomposer
}
