package schema

// RegistrySeriesTable represents the 'registry.series' table.
type RegistrySeriesTable struct {
	Table string

	ID         string
	ExternalID string
	Title      string

	AutoSyncEnabled      string
	CheckIntervalMinutes string
	Priority             string

	SourceChapterCount  string
	SourceLastChapter   string
	BackendChapterCount string
	BackendLastChapter  string

	Status                string
	SyncProgressTotal     string
	SyncProgressCompleted string
	SyncProgressFailed    string

	// Denormalized primary-source fields: mirrored from the priority=1 source.
	MangaURL     string
	SourceDomain string
	MangaSlug    string

	LastScannedAt string
	LastSyncedAt  string
	NextScanAt    string
	CreatedAt     string
	UpdatedAt     string

	LastError           string
	LastErrorAt         string
	ConsecutiveFailures string
}

var RegistrySeries = RegistrySeriesTable{
	Table: "registry.series",

	ID:         "id",
	ExternalID: "externalid",
	Title:      "title",

	AutoSyncEnabled:      "autosyncenabled",
	CheckIntervalMinutes: "checkintervalminutes",
	Priority:             "priority",

	SourceChapterCount:  "sourcechaptercount",
	SourceLastChapter:   "sourcelastchapter",
	BackendChapterCount: "backendchaptercount",
	BackendLastChapter:  "backendlastchapter",

	Status:                "status",
	SyncProgressTotal:     "syncprogresstotal",
	SyncProgressCompleted: "syncprogresscompleted",
	SyncProgressFailed:    "syncprogressfailed",

	MangaURL:     "mangaurl",
	SourceDomain: "sourcedomain",
	MangaSlug:    "mangaslug",

	LastScannedAt: "lastscannedat",
	LastSyncedAt:  "lastsyncedat",
	NextScanAt:    "nextscanat",
	CreatedAt:     "createdat",
	UpdatedAt:     "updatedat",

	LastError:           "lasterror",
	LastErrorAt:         "lasterrorat",
	ConsecutiveFailures: "consecutivefailures",
}
