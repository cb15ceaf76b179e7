package jsonfile

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int                     `json:"version"`
	Avatars map[string]recordSchema `json:"avatars"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
	if s.Avatars == nil {
		s.Avatars = map[string]recordSchema{}
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported save schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type recordSchema struct {
	ConceptionTime *string `json:"conception_time"`
	GestationTime  float64 `json:"gestation_time"`
	GestationUnit  int     `json:"gestation_unit"`
	ChildCount     int     `json:"child_count"`
}
