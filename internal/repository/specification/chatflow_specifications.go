package specification

import "gorm.io/gorm"

type ByRemoteID struct {
	RemoteID string
}

func (s ByRemoteID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("remote_id = ?", s.RemoteID)
}

type DeployedOnly struct{}

func (s DeployedOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("deployed = ?", true)
}
