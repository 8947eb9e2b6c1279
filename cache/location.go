package cache

// ListResolver maps a list-type name (for example "queue") to the concrete
// video list identifier the host currently associates with it. It is a
// narrow collaborator into the host's catalog API.
type ListResolver interface {
	ListIDForType(listType string) (string, error)
}

// Path segment positions within a last-visited location. Locations look
// like "/video_list/<id>" or "/show/<id>/season/<id>/episode", so segment 0
// is empty, segment 1 is the view.
const (
	segView     = 1
	segItem     = 2
	segSubItem  = 4
	minSegments = 3
)

// InvalidateLastLocation derives which cache entries to invalidate from
// the path of the location the user last visited, supplied by the host as
// path segments. A list view invalidates the matching video list (and the
// common entry for recognized list types); a show view invalidates the
// episodes or seasons entry. Malformed paths are logged, never an error.
func (c *Cache) InvalidateLastLocation(segments []string, lists ListResolver) {
	if len(segments) < minSegments {
		c.logger.Error("Failed to invalidate cache entry for last location",
			"segments", segments)
		return
	}

	c.logger.Debug("Invalidating cache for last location", "segments", segments)

	switch segments[segView] {
	case "video_list":
		item := segments[segItem]
		if c.knownListType(item) && lists != nil {
			listID, err := lists.ListIDForType(item)
			if err != nil {
				c.logger.Error("Failed to resolve list id for type",
					"listType", item, "error", err)
				return
			}
			c.invalidateQuietly(BucketVideoList, listID)
			c.invalidateQuietly(BucketCommon, item)
		} else {
			c.invalidateQuietly(BucketVideoList, item)
		}
	case "show":
		if len(segments) > segSubItem {
			c.invalidateQuietly(BucketEpisodes, segments[segSubItem])
		} else {
			c.invalidateQuietly(BucketSeasons, segments[segItem])
		}
	}
}

// invalidateQuietly drops an entry in a known bucket, logging instead of
// propagating the impossible unknown-bucket error.
func (c *Cache) invalidateQuietly(bucketName, identifier string) {
	if err := c.InvalidateEntry(bucketName, identifier); err != nil {
		c.logger.Error("Failed to invalidate cache entry",
			"bucket", bucketName, "identifier", identifier, "error", err)
	}
}

func (c *Cache) knownListType(name string) bool {
	for _, t := range c.listTypes {
		if name == t {
			return true
		}
	}
	return false
}
