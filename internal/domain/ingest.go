package domain

// IngestReport counts what happened while loading raw extracts.
type IngestReport struct {
	FilesLoaded int
	FilesFailed int
	RowsSkipped int
	Records     int
}
