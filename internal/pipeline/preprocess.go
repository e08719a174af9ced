package pipeline

import (
	"context"
	"encoding/base64"

	"golang.org/x/sync/errgroup"

	"charmforge/internal/domain"
	"charmforge/internal/imgproc"
	"charmforge/internal/infra"
	"charmforge/internal/transform"
)

// desaturation value for the templated transform path.
const templateSaturation = -100

// Preprocessor normalizes the uploaded photo into the working image: a fixed
// square, padded on white, desaturated, JPEG-encoded. It prefers the remote
// transformation endpoint and falls back to local rasterization; it never
// fails, degrading to the untouched upload in the worst case.
type Preprocessor struct {
	transform *transform.Client
	size      int
	logger    *infra.Logger
}

// NewPreprocessor wires the preprocessor against the transformation client.
func NewPreprocessor(tc *transform.Client, size int, logger *infra.Logger) *Preprocessor {
	return &Preprocessor{transform: tc, size: size, logger: logger}
}

// Prepare produces the working image. sourceURL is the already-stored public
// location of the upload; the remote transform is requested against it. The
// base64 transmissible encoding of the upload is computed concurrently with
// the remote fetch and joined before returning.
func (p *Preprocessor) Prepare(ctx context.Context, data []byte, contentType, sourceURL string) domain.WorkingImage {
	var (
		normalized []byte
		rawEncoded string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := First(gctx, nil,
			func(ctx context.Context) ([]byte, error) {
				return p.transform.Fetch(ctx, transform.Params{
					Saturation: templateSaturation,
					Width:      p.size,
					Height:     p.size,
					Fit:        "pad",
					Background: "white",
					Format:     "jpg",
				}, sourceURL)
			},
			func(ctx context.Context) ([]byte, error) {
				return imgproc.Normalize(data, contentType, p.size)
			},
		)
		if err != nil && p.logger != nil {
			p.logger.Warn().Err(err).Msg("preprocessing degraded to the untouched upload")
		}
		normalized = out
		return nil
	})
	g.Go(func() error {
		rawEncoded = base64.StdEncoding.EncodeToString(data)
		return nil
	})
	_ = g.Wait()

	if len(normalized) == 0 {
		return domain.WorkingImage{
			Data:        data,
			ContentType: contentType,
			Base64:      rawEncoded,
		}
	}
	return domain.WorkingImage{
		Data:        normalized,
		ContentType: "image/jpeg",
		Base64:      base64.StdEncoding.EncodeToString(normalized),
		Dim:         p.size,
	}
}
