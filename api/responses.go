package api

import (
	"github.com/xraph/shelf/object"
)

// ObjectResponse is the envelope for single-object responses.
type ObjectResponse struct {
	Data        object.Object       `json:"data" description:"Object fields"`
	Permissions map[string][]string `json:"permissions" description:"Object ACEs visible to the caller"`
}

// PageResponse is the envelope for collection listings and bulk deletes.
type PageResponse struct {
	Data []object.Object `json:"data" description:"Objects on this page"`
}

// HelloResponse describes the server.
type HelloResponse struct {
	ProjectName    string        `json:"project_name" description:"Server name"`
	HTTPAPIVersion string        `json:"http_api_version" description:"URL version prefix"`
	Settings       HelloSettings `json:"settings" description:"Public settings"`
}

// HelloSettings is the public settings block of the hello response.
type HelloSettings struct {
	ReadOnly        bool `json:"readonly" description:"Whether writes are refused"`
	DefaultPageSize int  `json:"default_page_size" description:"Page size when _limit is absent"`
	MaxPageSize     int  `json:"max_page_size" description:"Hard ceiling on _limit"`
}

// HeartbeatResponse reports backend health.
type HeartbeatResponse struct {
	Storage    bool `json:"storage" description:"Object storage reachable"`
	Permission bool `json:"permission" description:"Permission backend reachable"`
}

// envelope splits the ephemeral permission annotation off an object.
func envelope(obj object.Object) *ObjectResponse {
	data := obj.Clone()
	perms, _ := data[object.FieldPermissions].(map[string][]string)
	delete(data, object.FieldPermissions)
	if perms == nil {
		perms = map[string][]string{}
	}
	return &ObjectResponse{Data: data, Permissions: perms}
}
