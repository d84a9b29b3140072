package postgres

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var directoryColumns = []string{
	"profile_id", "username", "owner", "name", "bio", "game_count", "level", "tags", "updated_at",
}

// ListFilter narrows a directory listing. Zero values are ignored; Search
// matches name or bio case-insensitively.
type ListFilter struct {
	ProfileIDs []string
	Owners     []string
	MinLevel   int
	MaxLevel   int
	Search     string
	Limit      int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildListQuery(f ListFilter) (string, []any, error) {
	q := psql.Select(directoryColumns...).From("directory_entries")

	if len(f.ProfileIDs) > 0 {
		q = q.Where(sq.Eq{"profile_id": f.ProfileIDs})
	}
	if len(f.Owners) > 0 {
		q = q.Where(sq.Eq{"owner": f.Owners})
	}
	if f.MinLevel > 0 {
		q = q.Where(sq.GtOrEq{"level": f.MinLevel})
	}
	if f.MaxLevel > 0 {
		q = q.Where(sq.LtOrEq{"level": f.MaxLevel})
	}
	if f.Search != "" {
		pattern := "%" + likeEscaper.Replace(f.Search) + "%"
		q = q.Where(sq.Or{sq.ILike{"name": pattern}, sq.ILike{"bio": pattern}})
	}

	q = q.OrderBy("level DESC", "name ASC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	return q.ToSql()
}

func buildPruneQuery(keep []string) (string, []any, error) {
	q := psql.Delete("directory_entries")
	if len(keep) > 0 {
		q = q.Where(sq.NotEq{"profile_id": keep})
	}
	return q.ToSql()
}
