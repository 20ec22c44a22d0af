package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackLoader_Load(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	definitions := []Definition{testDefinition("SAVE10")}

	t.Run("uses S3 when it succeeds", func(t *testing.T) {
		mockS3 := new(MockLoader)
		mockFile := new(MockLoader)

		mockS3.On("Load", ctx, "vouchers/vouchers.json.gz").Return(definitions, nil)

		loader := NewFallbackLoader(mockS3, mockFile, "vouchers/", logger)

		got, err := loader.Load(ctx, "vouchers.json.gz")

		require.NoError(t, err)
		assert.Equal(t, definitions, got)
		mockS3.AssertExpectations(t)
		mockFile.AssertNotCalled(t, "Load")
	})

	t.Run("falls back to the file system when S3 fails", func(t *testing.T) {
		mockS3 := new(MockLoader)
		mockFile := new(MockLoader)

		mockS3.On("Load", ctx, "vouchers/vouchers.json.gz").Return(nil, errors.New("access denied"))
		mockFile.On("Load", ctx, "vouchers.json.gz").Return(definitions, nil)

		loader := NewFallbackLoader(mockS3, mockFile, "vouchers/", logger)

		got, err := loader.Load(ctx, "vouchers.json.gz")

		require.NoError(t, err)
		assert.Equal(t, definitions, got)
		mockS3.AssertExpectations(t)
		mockFile.AssertExpectations(t)
	})

	t.Run("skips S3 entirely when not configured", func(t *testing.T) {
		mockFile := new(MockLoader)

		mockFile.On("Load", ctx, "vouchers.json.gz").Return(definitions, nil)

		loader := NewFallbackLoader(nil, mockFile, "vouchers/", logger)

		got, err := loader.Load(ctx, "vouchers.json.gz")

		require.NoError(t, err)
		assert.Equal(t, definitions, got)
		mockFile.AssertExpectations(t)
	})

	t.Run("surfaces the file loader failure", func(t *testing.T) {
		mockS3 := new(MockLoader)
		mockFile := new(MockLoader)

		mockS3.On("Load", ctx, "vouchers/vouchers.json.gz").Return(nil, errors.New("no such key"))
		mockFile.On("Load", ctx, "vouchers.json.gz").Return(nil, errors.New("no such file"))

		loader := NewFallbackLoader(mockS3, mockFile, "vouchers/", logger)

		_, err := loader.Load(ctx, "vouchers.json.gz")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no such file")
	})
}
