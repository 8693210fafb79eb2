// Package protocol defines the JSON wire messages pushed to viewers.
//
// Every frame is an envelope discriminated by its "type" field. The server
// only pushes; inbound frames exist to keep the transport alive and are
// discarded by the read pump.
package protocol

import (
	"encoding/json"

	"github.com/mklatt/glowcast/internal/domain"
)

// Type discriminates the payload shape of a wire message.
type Type string

const (
	TypePagesSync      Type = "pages_sync"
	TypePageUpdate     Type = "page_update"
	TypePageDelete     Type = "page_delete"
	TypeRotationUpdate Type = "rotation_update"
	TypeReload         Type = "reload"
	TypeDebug          Type = "debug"
)

// PagesSyncMessage carries the full ordered non-expired page list and the
// resolved rotation settings. Sent on connect and after bulk operations.
type PagesSyncMessage struct {
	Type     Type                    `json:"type"`
	Pages    []domain.Page           `json:"pages"`
	Rotation domain.ResolvedRotation `json:"rotation"`
}

type PageUpdateMessage struct {
	Type Type        `json:"type"`
	Page domain.Page `json:"page"`
}

type PageDeleteMessage struct {
	Type     Type   `json:"type"`
	PageName string `json:"page_name"`
}

type RotationUpdateMessage struct {
	Type     Type                    `json:"type"`
	Rotation domain.ResolvedRotation `json:"rotation"`
}

type ReloadMessage struct {
	Type Type `json:"type"`
}

type DebugMessage struct {
	Type    Type `json:"type"`
	Enabled bool `json:"enabled"`
}

// Envelope is the decode-side union of all message shapes. Viewers switch
// on Type and read the fields that apply.
type Envelope struct {
	Type     Type                     `json:"type"`
	Pages    []domain.Page            `json:"pages,omitempty"`
	Rotation *domain.ResolvedRotation `json:"rotation,omitempty"`
	Page     *domain.Page             `json:"page,omitempty"`
	PageName string                   `json:"page_name,omitempty"`
	Enabled  *bool                    `json:"enabled,omitempty"`
}

func PagesSync(pages []domain.Page, rotation domain.ResolvedRotation) ([]byte, error) {
	if pages == nil {
		pages = []domain.Page{}
	}
	return json.Marshal(PagesSyncMessage{Type: TypePagesSync, Pages: pages, Rotation: rotation})
}

func PageUpdate(page domain.Page) ([]byte, error) {
	return json.Marshal(PageUpdateMessage{Type: TypePageUpdate, Page: page})
}

func PageDelete(name string) ([]byte, error) {
	return json.Marshal(PageDeleteMessage{Type: TypePageDelete, PageName: name})
}

func RotationUpdate(rotation domain.ResolvedRotation) ([]byte, error) {
	return json.Marshal(RotationUpdateMessage{Type: TypeRotationUpdate, Rotation: rotation})
}

func Reload() ([]byte, error) {
	return json.Marshal(ReloadMessage{Type: TypeReload})
}

func Debug(enabled bool) ([]byte, error) {
	return json.Marshal(DebugMessage{Type: TypeDebug, Enabled: enabled})
}
