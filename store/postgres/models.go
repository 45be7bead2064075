package postgres

import (
	"github.com/xraph/grove"

	"github.com/xraph/shelf/object"
)

type objectModel struct {
	grove.BaseModel `grove:"table:shelf_objects"`
	Resource        string         `grove:"resource,pk,notnull"`
	ParentID        string         `grove:"parent_id,pk,notnull"`
	ID              string         `grove:"id,pk,notnull"`
	LastModified    int64          `grove:"last_modified,notnull"`
	Data            map[string]any `grove:"data,type:jsonb"`
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

func objectToModel(resource, parentID string, obj object.Object) *objectModel {
	data := map[string]any(obj.Clone())
	delete(data, object.FieldID)
	delete(data, object.FieldLastModified)
	delete(data, object.FieldDeleted)
	return &objectModel{
		Resource:     resource,
		ParentID:     parentID,
		ID:           obj.ID(),
		LastModified: obj.LastModified(),
		Data:         data,
	}
}

func objectFromModel(m *objectModel) object.Object {
	obj := object.Object(m.Data).Clone()
	if obj == nil {
		obj = object.Object{}
	}
	obj.SetID(m.ID)
	obj.SetLastModified(m.LastModified)
	return obj
}

func tombstoneFromModel(m *tombstoneModel) object.Object {
	return object.Object{
		object.FieldID:           m.ID,
		object.FieldLastModified: m.LastModified,
		object.FieldDeleted:      true,
	}
}
