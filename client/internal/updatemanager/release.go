package updatemanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/voiceassistant/assistant/client/internal/updatemanager/downloader"
)

const descriptorSizeLimit = 1 << 20

// Release is the newer version announced by the version descriptor
type Release struct {
	Version          string
	ArtifactLocation string
	Changelog        string
}

type releaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// descriptor accepts both the plain version document and a GitHub
// "latest release" response
type descriptor struct {
	Version   string `json:"version"`
	URL       string `json:"url"`
	Artifact  string `json:"artifact"`
	Changelog string `json:"changelog"`

	TagName string         `json:"tag_name"`
	Body    string         `json:"body"`
	Assets  []releaseAsset `json:"assets"`
}

func fetchDescriptor(ctx context.Context, descriptorURL string) (*descriptor, error) {
	data, err := downloader.DownloadToMemory(ctx, descriptorURL, descriptorSizeLimit)
	if err != nil {
		return nil, err
	}

	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("invalid version descriptor: %w", err)
	}
	return &d, nil
}

// release resolves the descriptor into a Release. A GitHub release document
// only offers its assets, its top level url is the API location of the release
// itself. A relative artifact is resolved against the descriptor location.
func (d *descriptor) release(descriptorURL, assetName string) (*Release, error) {
	r := &Release{
		Version:   d.Version,
		Changelog: d.Changelog,
	}

	var location string
	if d.TagName != "" {
		if r.Version == "" {
			r.Version = strings.TrimPrefix(strings.TrimSpace(d.TagName), "v")
		}
		if r.Changelog == "" {
			r.Changelog = d.Body
		}
		location = d.assetURL(assetName)
	} else {
		location = d.URL
		if location == "" {
			location = d.Artifact
		}
	}

	if strings.TrimSpace(r.Version) == "" {
		return nil, errors.New("version descriptor has no version")
	}
	if location == "" {
		return nil, ErrNoArtifact
	}

	resolved, err := resolveLocation(descriptorURL, location)
	if err != nil {
		return nil, err
	}
	r.ArtifactLocation = resolved

	return r, nil
}

func (d *descriptor) assetURL(assetName string) string {
	for _, asset := range d.Assets {
		if strings.EqualFold(asset.Name, assetName) {
			return asset.BrowserDownloadURL
		}
	}
	return ""
}

func resolveLocation(descriptorURL, location string) (string, error) {
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid artifact location %q: %w", location, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	base, err := url.Parse(descriptorURL)
	if err != nil {
		return "", fmt.Errorf("invalid descriptor url %q: %w", descriptorURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}
