package pdfutil

import "errors"

// ErrExportFailed marks any failure while preparing print variants.
var ErrExportFailed = errors.New("pdf export failed")
