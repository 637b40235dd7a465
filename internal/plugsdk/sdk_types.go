package plugsdk

const (
	HeaderUserAgent   = "User-Agent"
	HeaderPlugVersion = "X-PlugSync-Version"
)

const (
	agentsFiles = "/agents/files"
	agentsPlugs = "/agents/plugs"
	agentsPlug  = "/agents/plugs/{plugId}"
)

// UploadFileRequest is the body of POST /agents/files
type UploadFileRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// CreatePlugRequest is the body of POST /agents/plugs
type CreatePlugRequest struct {
	Name   string `json:"name"`
	FileID string `json:"file_id"`
}

// UpdatePlugRequest is the body of PUT /agents/plugs/{plugId}
type UpdatePlugRequest struct {
	FileID string `json:"file_id"`
}

// IDResponse is the shape shared by all successful responses.
type IDResponse struct {
	ID string `json:"id"`
}
