package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sha1n/docindex/internal/domain"
)

// Field types used by the index mapping.
const (
	typeText    = "text"
	typeKeyword = "keyword"
	typeLong    = "long"

	// exactSubField is the sub-field name behind domain.ExactSuffix.
	exactSubField = "keyword"
)

// Mapping is the body of an index creation request.
type Mapping struct {
	Mappings MappingProperties `json:"mappings"`
}

// MappingProperties lists the mapped fields.
type MappingProperties struct {
	Properties map[string]FieldMapping `json:"properties"`
}

// FieldMapping maps one field, with optional sub-fields.
type FieldMapping struct {
	Type   string                  `json:"type"`
	Fields map[string]FieldMapping `json:"fields,omitempty"`
}

// textWithExact maps a full-text field with an exact-match keyword sibling,
// so the same field supports fuzzy matching and precise sorting.
func textWithExact() FieldMapping {
	return FieldMapping{
		Type: typeText,
		Fields: map[string]FieldMapping{
			exactSubField: {Type: typeKeyword},
		},
	}
}

// IndexMapping returns the explicit mapping for document records.
func IndexMapping() Mapping {
	return Mapping{
		Mappings: MappingProperties{
			Properties: map[string]FieldMapping{
				domain.FieldFileName: textWithExact(),
				domain.FieldFilePath: textWithExact(),
				domain.FieldFileType: {Type: typeKeyword},
				domain.FieldFileSize: {Type: typeLong},
				domain.FieldContent:  {Type: typeText},
			},
		},
	}
}

// IndexExists reports whether the index exists.
func (c *Client) IndexExists(ctx context.Context) (bool, error) {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, connectivityError(opIndexExists, err)
	}
	defer closeBody(res.Body)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, responseError(opIndexExists, res.StatusCode, readError(res.StatusCode, res.Body))
	}
}

// EnsureIndex creates the index with IndexMapping when it does not exist.
func (c *Client) EnsureIndex(ctx context.Context) error {
	exists, err := c.IndexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		c.logger.InfoContext(ctx, "Index already exists", "index", c.index)
		return nil
	}

	body, err := json.Marshal(IndexMapping())
	if err != nil {
		return fmt.Errorf("failed to encode index mapping: %w", err)
	}

	res, err := c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return connectivityError(opCreateIndex, err)
	}
	defer closeBody(res.Body)

	if res.IsError() {
		cause := readError(res.StatusCode, res.Body)
		// Another writer created it between the existence check and now.
		if cause.Type == resourceAlreadyExistsType {
			c.logger.InfoContext(ctx, "Index already exists", "index", c.index)
			return nil
		}
		return responseError(opCreateIndex, res.StatusCode, cause)
	}

	c.logger.InfoContext(ctx, "Index created", "index", c.index)
	return nil
}
