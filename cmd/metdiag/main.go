/*
Copyright © 2024 the metdiag authors.
This file is part of metdiag.

metdiag is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

metdiag is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with metdiag.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command metdiag calculates integrated vapor transport and equivalent
// potential temperature gradients from reanalysis files.
package main

import (
	"os"

	"github.com/spatialmodel/metdiag/metdiagutil"
)

func main() {
	if err := metdiagutil.Root.Execute(); err != nil {
		os.Exit(1)
	}
}
