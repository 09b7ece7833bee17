package redis

import (
	"github.com/mcoot/tileworld/internal/model"
)

// keyspace builds the keys of one world under its prefix:
//
//	<prefix>:profile:<id>              JSON profile
//	<prefix>:idx:username:<username>   owning profile id
type keyspace string

func (k keyspace) profile(id model.ProfileID) string {
	return string(k) + ":profile:" + string(id)
}

func (k keyspace) username(username string) string {
	return string(k) + ":idx:username:" + username
}
