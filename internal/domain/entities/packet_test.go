package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

func strPtr(s string) *string { return &s }

func TestPacket_Retryable(t *testing.T) {
	dataKind := entities.ErrorKindData
	dbKind := entities.ErrorKindDatabase

	assert.False(t, (&entities.Packet{ErrorKind: &dataKind}).Retryable())
	assert.True(t, (&entities.Packet{ErrorKind: &dbKind}).Retryable())
	// Rows written before the kind column existed fall back to the message.
	assert.False(t, (&entities.Packet{LastError: strPtr("Template not found: YOUTH")}).Retryable())
	assert.True(t, (&entities.Packet{LastError: strPtr("timeout")}).Retryable())
	assert.True(t, (&entities.Packet{}).Retryable())
}

func TestPacket_VisibleToClient(t *testing.T) {
	assert.True(t, (&entities.Packet{Status: entities.PacketStatusReady, Content: &entities.Content{}}).VisibleToClient())
	assert.False(t, (&entities.Packet{Status: entities.PacketStatusFailed, Content: &entities.Content{}}).VisibleToClient())
	assert.False(t, (&entities.Packet{Status: entities.PacketStatusReady}).VisibleToClient())
}

func TestPacket_NeedsAttention(t *testing.T) {
	p := &entities.Packet{Status: entities.PacketStatusFailed, RetryCount: 3}
	assert.True(t, p.NeedsAttention(3))
	p.RetryCount = 2
	assert.False(t, p.NeedsAttention(3))
}

func TestDocumentType_Valid(t *testing.T) {
	assert.True(t, entities.DocumentTypeRecovery.Valid())
	assert.False(t, entities.DocumentType("DIET").Valid())
}

func TestTemplate_Validate(t *testing.T) {
	tmpl := &entities.Template{
		Name:         "t",
		DocumentType: entities.DocumentTypeIntro,
		Sections: []entities.TemplateSection{{
			Key:    "welcome",
			Blocks: []entities.Block{{Kind: entities.BlockKindText, Text: "hi"}},
		}},
	}
	assert.NoError(t, tmpl.Validate())

	tmpl.Sections[0].Blocks[0].Condition = &entities.Condition{Path: "client.age", Op: "greater"}
	assert.ErrorContains(t, tmpl.Validate(), "unknown op")

	tmpl.Sections[0].Blocks[0] = entities.Block{Kind: entities.BlockKindTable}
	assert.ErrorContains(t, tmpl.Validate(), "table without columns")

	tmpl.DocumentType = "DIET"
	assert.ErrorContains(t, tmpl.Validate(), "unknown document type")
}
