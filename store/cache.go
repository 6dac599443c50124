package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"git.fiblab.net/sim/isochrone/layer"
)

// LoadWithCache returns the cached dataset of src if cacheDir holds one and
// calls download otherwise, saving its result. An empty cacheDir disables
// the cache.
func LoadWithCache(cacheDir string, src Source, download func() (*layer.Dataset, error)) (*layer.Dataset, error) {
	if cacheDir == "" {
		return download()
	}
	path := filepath.Join(cacheDir, src.GetCachePath())
	if ds, err := readJSON(path); err == nil {
		log.Infof("load %v from cache %s", ds, path)
		return ds, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("ignore broken cache %s: %v", path, err)
	}
	ds, err := download()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		log.Warnf("failed to create cache dir %s: %v", cacheDir, err)
		return ds, nil
	}
	if err := writeJSON(path, ds); err != nil {
		log.Warnf("failed to write cache %s: %v", path, err)
	} else {
		log.Infof("save %v to cache %s", ds, path)
	}
	return ds, nil
}

func readJSON(path string) (*layer.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ds := &layer.Dataset{}
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func writeJSON(path string, ds *layer.Dataset) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
