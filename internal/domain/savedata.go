package domain

// SaveData maps avatar ids to their records. It is always read and written as
// a whole.
type SaveData struct {
	Avatars map[AvatarID]ChildRecord
}

func NewSaveData() SaveData {
	return SaveData{Avatars: map[AvatarID]ChildRecord{}}
}

func (d SaveData) Record(id AvatarID) (ChildRecord, bool) {
	record, ok := d.Avatars[id]
	return record, ok
}

func (d *SaveData) Put(id AvatarID, record ChildRecord) {
	if d.Avatars == nil {
		d.Avatars = map[AvatarID]ChildRecord{}
	}
	d.Avatars[id] = record
}

// RecordOrDefault returns the record for id, inserting a default record when
// none exists. The boolean reports whether a record was created.
func (d *SaveData) RecordOrDefault(id AvatarID) (ChildRecord, bool) {
	if record, ok := d.Record(id); ok {
		return record, false
	}

	record := DefaultChildRecord()
	d.Put(id, record)
	return record, true
}
