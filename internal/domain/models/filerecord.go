package models

// UncategorizedSubject is the display subject for objects stored without a
// subject folder prefix.
const UncategorizedSubject = "Uncategorized"

// FileRecord is the canonical shape every listing entry is normalized into.
// It is derived from the storage key on each call, never persisted.
// DisplayName never contains the internal uniqueness prefix.
type FileRecord struct {
	Path        string `json:"path"`
	SignedURL   string `json:"url"`
	DisplayName string `json:"display_name"`
	Subject     string `json:"subject"`
	Filename    string `json:"filename"`
}

// UploadReceipt is returned after a successful upload. SignedURL is nil when
// post-upload link minting failed; the upload itself still succeeded and the
// object remains listable and downloadable.
type UploadReceipt struct {
	Path      string  `json:"path"`
	SignedURL *string `json:"url"`
	Subject   string  `json:"subject"`
	Filename  string  `json:"filename"`
}
