package main

import (
	"context"
	"io"
	"os"
)

// localFiles opens paths as given, without an upload directory.
type localFiles struct{}

func (localFiles) OpenReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(path)
}
