package sdk

type Asset string

const (
	// AssetDGOV is the governance token locked by stakers.
	AssetDGOV Asset = "dgov"
	// AssetDBIT pays interest and vote rewards.
	AssetDBIT Asset = "dbit"
	AssetHive Asset = "hive"
	AssetHbd  Asset = "hbd"
)

// String returns the raw ticker string for logging or host calls.
// Example payload: sdk.AssetDGOV.String()
func (a Asset) String() string {
	return string(a)
}

// IsKnown reports whether the ticker is one of the assets the governance contract handles.
func (a Asset) IsKnown() bool {
	switch a {
	case AssetDGOV, AssetDBIT, AssetHive, AssetHbd:
		return true
	}
	return false
}
