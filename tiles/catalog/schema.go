package catalog

// FileTable represents the contents of config/tiles/tiles.json. The loader
// accepts any array of entry documents; the schema models the canonical
// format authored by designers.
type FileTable []EntryDocument
