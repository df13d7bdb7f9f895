package scene

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Asset is one project asset entry.
type Asset struct {
	GUID      string    `json:"guid"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	AssetType string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// assetTypes is the set of asset types asset.create can make, with the
// extension each one gets when the caller omits it.
var assetTypes = map[string]string{
	"Material":           ".mat",
	"PhysicMaterial":     ".physicMaterial",
	"AnimatorController": ".controller",
	"Folder":             "",
}

// AssetTypeNames returns the creatable asset types, sorted.
func AssetTypeNames() []string {
	names := make([]string, 0, len(assetTypes))
	for name := range assetTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AssetDB is the in-memory project asset database, keyed by project path.
type AssetDB struct {
	assets map[string]*Asset
}

// NewAssetDB creates an empty asset database.
func NewAssetDB() *AssetDB {
	return &AssetDB{assets: map[string]*Asset{}}
}

// Create makes a typed asset at the given project path.
func (db *AssetDB) Create(assetType, path string) (*Asset, error) {
	ext, ok := assetTypes[assetType]
	if !ok {
		for canonical, e := range assetTypes {
			if strings.EqualFold(canonical, assetType) {
				assetType, ext, ok = canonical, e, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("unknown asset type %q (known: %s)",
			assetType, strings.Join(AssetTypeNames(), ", "))
	}
	if path == "" {
		return nil, fmt.Errorf("asset path is required")
	}
	if ext != "" && !strings.HasSuffix(path, ext) {
		path += ext
	}
	if _, exists := db.assets[path]; exists {
		return nil, fmt.Errorf("asset already exists at %q", path)
	}

	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	name = strings.TrimSuffix(name, ext)

	asset := &Asset{
		GUID:      uuid.NewString(),
		Name:      name,
		Path:      path,
		AssetType: assetType,
		CreatedAt: time.Now(),
	}
	db.assets[path] = asset
	return asset, nil
}

// Remove deletes the asset at path. Used to undo asset.create.
func (db *AssetDB) Remove(path string) {
	delete(db.assets, path)
}

// Find matches assets against the conventional filter form
// "t:Type name-fragment". Either part may be omitted; an empty filter
// returns everything. Results are sorted by path.
func (db *AssetDB) Find(filter string) []*Asset {
	var wantType, wantName string
	for _, tok := range strings.Fields(filter) {
		if strings.HasPrefix(tok, "t:") {
			wantType = strings.TrimPrefix(tok, "t:")
		} else {
			wantName = tok
		}
	}

	var out []*Asset
	for _, a := range db.assets {
		if wantType != "" && !strings.EqualFold(a.AssetType, wantType) {
			continue
		}
		if wantName != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(wantName)) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of assets.
func (db *AssetDB) Len() int {
	return len(db.assets)
}
