package db

import (
	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/partnerops/internal/config"
)

// NewSnowflakeNode provides the row id generator shared by repositories.
func NewSnowflakeNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
