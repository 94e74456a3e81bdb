package output

import (
	"os"

	"github.com/pkg/errors"

	"github.com/querybench/querybench/internal/report"
)

// WriteReportFile writes the finished documents as an indented JSON
// array to path. Empty path or "-" writes to stdout.
func WriteReportFile(docs []*report.BenchmarkMetrics, path string) error {
	if path == "" || path == "-" {
		return report.WriteJSON(os.Stdout, docs)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating report file %s", path)
	}
	if err := report.WriteJSON(f, docs); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing report file %s", path)
	}
	return errors.Wrapf(f.Close(), "closing report file %s", path)
}
