package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/watercolor-games/redteam/core/config"
	"github.com/watercolor-games/redteam/core/vfs"
)

var img2fsOutput string

// img2fs converts a Docker image to a root filesystem image
var img2fs = &cobra.Command{
	Use:   "img2fs INPUT_TAR [TAG]",
	Short: "Convert a docker image to a root filesystem for the game world.",
	Long: `Convert a docker image to a root_fs.tar.gz the world filesystem is built from.

Prepare an image by running the following:

	docker pull some-image:latest
	docker save some-image:latest > some-image.tar
	redteam img2fs some-image.tar
`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		log, err := newLogger(cmd)
		if err != nil {
			return err
		}

		inputPath := args[0]

		// Find the tag associated with the image.
		var tag name.Tag
		if len(args) == 2 {
			tag, err = name.NewTag(args[1])
			if err != nil {
				return err
			}
		} else {
			manifest, err := tarball.LoadManifest(func() (io.ReadCloser, error) {
				return os.Open(inputPath)
			})
			if err != nil {
				return err
			}

			if len(manifest) != 1 || len(manifest[0].RepoTags) == 0 {
				var tags []string
				for _, m := range manifest {
					tags = append(tags, m.RepoTags...)
				}

				return fmt.Errorf("multiple tags found in the input, specify one of: %q", tags)
			}
			tag, err = name.NewTag(manifest[0].RepoTags[0])
			if err != nil {
				return err
			}
		}

		image, err := tarball.ImageFromPath(inputPath, &tag)
		if err != nil {
			return err
		}

		layers, err := image.Layers()
		if err != nil {
			return err
		}

		root := afero.NewMemMapFs()
		if err := vfs.ApplyImageLayers(root, layers); err != nil {
			return err
		}

		outputPath := img2fsOutput
		if outputPath == "" {
			outputPath = filepath.Join(cfgPath, config.RootFSName)
		}

		out, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer out.Close()

		if err := vfs.WriteTarGz(root, out); err != nil {
			return err
		}

		log.Info().Str("image", tag.String()).Int("layers", len(layers)).Str("output", outputPath).Msg("wrote root filesystem")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(img2fs)
	img2fs.Flags().StringVarP(&img2fsOutput, "output", "o", "", "output path, defaults to root_fs.tar.gz in the config directory")
}
