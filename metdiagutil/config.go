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

package metdiagutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/metdiag"
	"github.com/spf13/cast"
)

// DiagConfig creates a diagnostic configuration from a viper instance.
func DiagConfig(cfg *viper.Viper) (*metdiag.Config, error) {
	c := new(metdiag.Config)
	var err error
	for _, v := range []struct {
		name string
		dst  *float64
	}{
		{"north", &c.North},
		{"south", &c.South},
		{"east", &c.East},
		{"west", &c.West},
		{"target_level", &c.TargetLevel},
	} {
		if *v.dst, err = cast.ToFloat64E(cfg.Get(v.name)); err != nil {
			return nil, fmt.Errorf("metdiag: invalid %s: %v", v.name, err)
		}
	}
	if c.LevelBand, err = toBand(cfg.Get("level_band")); err != nil {
		return nil, fmt.Errorf("metdiag: invalid level_band: %v", err)
	}
	if c.Workers, err = cast.ToIntE(cfg.Get("workers")); err != nil {
		return nil, fmt.Errorf("metdiag: invalid workers: %v", err)
	}
	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// toBand converts a two-element list to a pressure band, with the
// smaller value first. The list may also be a string such as
// "[300,1000]" if it was set from a command line argument.
func toBand(v interface{}) ([2]float64, error) {
	var b [2]float64
	if str, ok := v.(string); ok {
		v = strings.FieldsFunc(strings.Trim(str, "[] "), func(r rune) bool {
			return r == ',' || r == ' '
		})
	}
	s, err := cast.ToStringSliceE(v)
	if err != nil {
		return b, err
	}
	if len(s) != 2 {
		return b, fmt.Errorf("need 2 values but got %d: %v", len(s), s)
	}
	for i, e := range s {
		if b[i], err = cast.ToFloat64E(e); err != nil {
			return b, err
		}
	}
	if b[0] > b[1] {
		b[0], b[1] = b[1], b[0]
	}
	return b, nil
}

func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}
