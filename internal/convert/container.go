// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/jkudo/slideview/internal/container"
)

const (
	containerInputDir  = "/in"
	containerOutputDir = "/out"
)

// ContainerConverter runs LibreOffice inside a container image. It depends
// on a container.Runtime (docker or podman) injected at construction time.
// The image's entrypoint must be the LibreOffice binary.
type ContainerConverter struct {
	runtime container.Runtime
	image   string
	user    string
}

// NewContainerConverter creates a converter that uses the given container
// runtime to run image. It verifies that the image exists locally before
// returning.
func NewContainerConverter(ctx context.Context, rt container.Runtime, image string) (*ContainerConverter, error) {
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("converter image not available in %s: %w", rt.Name(), err)
	}
	return &ContainerConverter{
		runtime: rt,
		image:   image,
		user:    fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
	}, nil
}

// Convert mounts the source's directory read-only and outputDir read-write,
// then converts the source inside the container.
func (c *ContainerConverter) Convert(ctx context.Context, sourcePath, outputDir string) error {
	src, err := filepath.Abs(sourcePath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", sourcePath, err)
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", outputDir, err)
	}

	spec := container.RunSpec{
		Image: c.image,
		User:  c.user,
		Mounts: []container.Mount{
			{Source: filepath.Dir(src), Target: containerInputDir, ReadOnly: true},
			{Source: out, Target: containerOutputDir},
		},
		Args: pdfArgs(path.Join(containerInputDir, filepath.Base(src)), containerOutputDir),
	}

	stderr := &tailBuffer{limit: 4096}
	if err := c.runtime.Run(ctx, spec, stderr, stderr); err != nil {
		return withOutput(err, stderr)
	}
	return nil
}
