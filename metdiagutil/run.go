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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/metdiag"
)

// Run calculates diagnostics for each of files and writes the results
// to outputDir, which is created if necessary. Files are processed
// independently: a failure is logged and the remaining files are
// still processed. The returned error lists every file that failed.
func Run(ctx context.Context, cfg *metdiag.Config, files []string, outputDir, suffix string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return fmt.Errorf("metdiag: creating output directory: %w", err)
	}
	var errs []error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := OutputPath(outputDir, f, suffix)
		flog := log.WithFields(logrus.Fields{"file": f, "output": out})
		start := time.Now()
		err := ProcessFile(ctx, cfg, f, out)
		cfg.Metrics.FileDone(err)
		if err != nil {
			flog.WithError(err).Error("metdiag: file failed")
			errs = append(errs, fmt.Errorf("metdiag: processing %s: %w", f, err))
			continue
		}
		flog.WithField("duration", time.Since(start)).Infof("metdiag: saved %s", out)
	}
	if len(errs) > 0 {
		return fmt.Errorf("metdiag: %d of %d files failed: %w", len(errs), len(files), errors.Join(errs...))
	}
	return nil
}

// ProcessFile calculates diagnostics for the reanalysis file at
// inputPath and writes them to outputPath.
func ProcessFile(ctx context.Context, cfg *metdiag.Config, inputPath, outputPath string) error {
	d, err := metdiag.OpenDataset(inputPath)
	if err != nil {
		return err
	}
	defer d.Close()
	in, err := d.Inputs(cfg.Bounds())
	if err != nil {
		return err
	}
	r, err := cfg.Assemble(ctx, in)
	if err != nil {
		return err
	}
	if cfg.Log != nil {
		cfg.Log.WithField("output", outputPath).Infof("metdiag: saving %s", outputPath)
	}
	return r.WriteFile(outputPath)
}

// OutputPath returns the result file path for inputPath: its base name
// without a .nc4 or .nc extension, followed by suffix and ".nc".
func OutputPath(outputDir, inputPath, suffix string) string {
	base := filepath.Base(inputPath)
	for _, ext := range []string{".nc4", ".nc"} {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	return filepath.Join(outputDir, base+suffix+".nc")
}
