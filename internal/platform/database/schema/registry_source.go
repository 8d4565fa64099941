package schema

// RegistrySourceTable represents the 'registry.source' table.
type RegistrySourceTable struct {
	Table string

	ID       string
	SeriesID string

	SourceURL    string
	SourceDomain string
	MangaSlug    string
	Priority     string
	IsEnabled    string

	LastChapterCount  string
	LastChapterNumber string
	LastScanStatus    string
	LastScanError     string
	LastScanAt        string

	CreatedAt string
	UpdatedAt string
}

var RegistrySource = RegistrySourceTable{
	Table: "registry.source",

	ID:       "id",
	SeriesID: "seriesid",

	SourceURL:    "sourceurl",
	SourceDomain: "sourcedomain",
	MangaSlug:    "mangaslug",
	Priority:     "priority",
	IsEnabled:    "isenabled",

	LastChapterCount:  "lastchaptercount",
	LastChapterNumber: "lastchapternumber",
	LastScanStatus:    "lastscanstatus",
	LastScanError:     "lastscanerror",
	LastScanAt:        "lastscanat",

	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}
