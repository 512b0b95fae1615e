package output

import "os"

var stdout = os.Stdout
