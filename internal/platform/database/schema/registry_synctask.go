package schema

// RegistrySyncTaskTable represents the 'registry.synctask' table.
type RegistrySyncTaskTable struct {
	Table string

	ID       string
	SeriesID string
	SourceID string

	ChapterURL    string
	ChapterNumber string
	Weight        string
	Status        string
	ZipURL        string
	Error         string
	RetryCount    string

	CreatedAt string
	UpdatedAt string
}

var RegistrySyncTask = RegistrySyncTaskTable{
	Table: "registry.synctask",

	ID:       "id",
	SeriesID: "seriesid",
	SourceID: "sourceid",

	ChapterURL:    "chapterurl",
	ChapterNumber: "chapternumber",
	Weight:        "weight",
	Status:        "status",
	ZipURL:        "zipurl",
	Error:         "error",
	RetryCount:    "retrycount",

	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}
