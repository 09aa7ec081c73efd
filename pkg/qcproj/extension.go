package qcproj

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// UnknownExtension handles the Unknown pair (0,0). It refuses to open or save
// anything so that unknown content is never silently treated as valid.
type UnknownExtension struct{}

// NewUnknownExtension creates the fallback extension for the Unknown pair.
func NewUnknownExtension() *UnknownExtension {
	return &UnknownExtension{}
}

func (e *UnknownExtension) Descriptor() ExtensionDescriptor {
	return unknownDescriptor
}

func (e *UnknownExtension) Open(ctx context.Context, path string) (*ContentDocument, error) {
	return nil, fmt.Errorf("open %s: %w", path, ErrUnsupportedContent)
}

func (e *UnknownExtension) Save(ctx context.Context, path string, doc *ContentDocument) error {
	return fmt.Errorf("save %s: %w", path, ErrUnsupportedContent)
}

// StoreExtension moves opaque content bytes through a FileStore. It knows
// nothing about the content's format; loaders that need one wrap or replace it.
type StoreExtension struct {
	descriptor ExtensionDescriptor
	store      FileStore
}

// NewStoreExtension creates an extension claiming d whose files live in store.
func NewStoreExtension(d ExtensionDescriptor, store FileStore) *StoreExtension {
	return &StoreExtension{descriptor: d, store: store}
}

// NewStringExtension creates the built-in String (1,1) extension.
func NewStringExtension(store FileStore) *StoreExtension {
	return NewStoreExtension(stringDescriptor, store)
}

func (e *StoreExtension) Descriptor() ExtensionDescriptor {
	return e.descriptor
}

func (e *StoreExtension) Open(ctx context.Context, path string) (*ContentDocument, error) {
	rc, err := e.store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read content %s: %w", path, err)
	}
	return &ContentDocument{Path: path, Data: data}, nil
}

func (e *StoreExtension) Save(ctx context.Context, path string, doc *ContentDocument) error {
	if doc == nil {
		return fmt.Errorf("save %s: nil document", path)
	}
	return e.store.Write(ctx, path, bytes.NewReader(doc.Data))
}
