package featureflag

type Flag string

const (
	FlagDisableMovement      Flag = "DISABLE_MOVEMENT"
	FlagDisableRayQueries    Flag = "DISABLE_RAY_QUERIES"
	FlagDisableVolumeQueries Flag = "DISABLE_VOLUME_QUERIES"
	FlagValidateIndex        Flag = "VALIDATE_INDEX"
)

var knownFlags = map[Flag]struct{}{
	FlagDisableMovement:      {},
	FlagDisableRayQueries:    {},
	FlagDisableVolumeQueries: {},
	FlagValidateIndex:        {},
}

// Known reports whether f is one of the flags a kenaz process understands.
func (f Flag) Known() bool {
	_, ok := knownFlags[f]
	return ok
}

// Toggles are the per-frame switches of a simulation.
type Toggles struct {
	// Bodies move every frame.
	Movement bool `json:"movement"`

	// A ray is cast along the camera view direction every frame.
	RayQueries bool `json:"ray_queries"`

	// Box and sphere overlap queries run around the camera and the world
	// center every frame.
	VolumeQueries bool `json:"volume_queries"`

	// The index invariants are checked after every frame.
	ValidateIndex bool `json:"validate_index"`
}
