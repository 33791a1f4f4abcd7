package mcpserver

// CatalogEntryContract describes the catalog entry fields returned by the
// document tools, so LLM consumers know which fields they may edit.
const CatalogEntryContract = `# Docshelf Catalog Entry

Each document in the library root has exactly one catalog entry.

| Field | Type | Editable | Notes |
|---|---|---|---|
| id | integer | no | assigned by the store |
| filename | string | no | unique key, ends with the library extension (default .pdf) |
| title | string | yes | defaults to the filename with _ and - turned into spaces, each word capitalized |
| description | string | yes | free text, empty by default |
| file_size | integer | no | bytes on disk, refreshed by sync and by edits |
| date_added | RFC 3339 time | no | set once when first catalogued |
| last_modified | RFC 3339 time | no | bumped on every change |

## Rules

1. Files are discovered by ` + "`sync_catalog`" + `; there is no tool to add an entry directly.
2. ` + "`update_document`" + ` accepts ` + "`title`" + ` (non-blank, at most 256 characters) and/or
   ` + "`description`" + ` (at most 4096 characters). At least one must be given.
3. Filenames are plain names. Any directory part is ignored, and names that do not end
   with the library extension are rejected.
`
