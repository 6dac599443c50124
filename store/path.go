package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// 可直接读取的数据集文件扩展名
var datasetExts = map[string]bool{".json": true, ".geojson": true}

// Path is a dataset location: a local file or a MongoDB collection.
type Path struct {
	File string
	DB   string
	Coll string
}

// NewPath parses {fspath} or {db}.{col}. A string ending in a dataset file
// extension is always a file and must exist. An empty string yields nil.
func NewPath(filePathOrColl string) (*Path, error) {
	s := strings.TrimSpace(filePathOrColl)
	if s == "" {
		return nil, nil
	}
	if datasetExts[strings.ToLower(filepath.Ext(s))] || strings.ContainsRune(s, os.PathSeparator) {
		if _, err := os.Stat(s); err != nil {
			return nil, fmt.Errorf("dataset file: %w", err)
		}
		return &Path{File: s}, nil
	}
	db, coll, ok := strings.Cut(s, ".")
	if !ok || db == "" || coll == "" || strings.Contains(coll, ".") {
		return nil, fmt.Errorf("expect {db}.{col} or a .json/.geojson file, got %q", s)
	}
	return &Path{DB: db, Coll: coll}, nil
}

func (p *Path) GetDb() string {
	return p.DB
}

func (p *Path) GetColl() string {
	return p.Coll
}

// GetCachePath is the cache file name of a collection.
func (p *Path) GetCachePath() string {
	return p.DB + "." + p.Coll + ".json"
}

func (p *Path) String() string {
	if p.File != "" {
		return p.File
	}
	return p.DB + "." + p.Coll
}
