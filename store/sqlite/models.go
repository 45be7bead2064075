package sqlite

import (
	"encoding/json"

	"github.com/xraph/grove"

	"github.com/xraph/shelf/object"
)

type objectModel struct {
	grove.BaseModel `grove:"table:shelf_objects"`
	Resource        string `grove:"resource,pk,notnull"`
	ParentID        string `grove:"parent_id,pk,notnull"`
	ID              string `grove:"id,pk,notnull"`
	LastModified    int64  `grove:"last_modified,notnull"`
	Data            string `grove:"data"` // JSON text
}

type tombstoneModel struct {
	grove.BaseModel `grove:"table:shelf_tombstones"`
	Resource        string `grove:"resource,pk,notnull"`
	ParentID        string `grove:"parent_id,pk,notnull"`
	ID              string `grove:"id,pk,notnull"`
	LastModified    int64  `grove:"last_modified,notnull"`
}

type timestampModel struct {
	grove.BaseModel `grove:"table:shelf_timestamps"`
	Resource        string `grove:"resource,pk,notnull"`
	ParentID        string `grove:"parent_id,pk,notnull"`
	LastModified    int64  `grove:"last_modified,notnull"`
}

type aceModel struct {
	grove.BaseModel `grove:"table:shelf_access"`
	ObjectID        string `grove:"object_id,pk,notnull"`
	Permission      string `grove:"permission,pk,notnull"`
	Principal       string `grove:"principal,pk,notnull"`
}

type userPrincipalModel struct {
	grove.BaseModel `grove:"table:shelf_user_principals"`
	UserID          string `grove:"user_id,pk,notnull"`
	Principal       string `grove:"principal,pk,notnull"`
}

func objectToModel(resource, parentID string, obj object.Object) (*objectModel, error) {
	data := map[string]any(obj.Clone())
	delete(data, object.FieldID)
	delete(data, object.FieldLastModified)
	delete(data, object.FieldDeleted)
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &objectModel{
		Resource:     resource,
		ParentID:     parentID,
		ID:           obj.ID(),
		LastModified: obj.LastModified(),
		Data:         string(raw),
	}, nil
}

func objectFromModel(m *objectModel) (object.Object, error) {
	obj := object.Object{}
	if m.Data != "" {
		if err := json.Unmarshal([]byte(m.Data), &obj); err != nil {
			return nil, err
		}
	}
	obj.SetID(m.ID)
	obj.SetLastModified(m.LastModified)
	return obj, nil
}

func tombstoneFromModel(m *tombstoneModel) object.Object {
	return object.Object{
		object.FieldID:           m.ID,
		object.FieldLastModified: m.LastModified,
		object.FieldDeleted:      true,
	}
}
