package feed

import (
	"net/url"

	"github.com/reportwell/notifyfeed/internal/model"
)

var entityRoots = map[model.EntityType]string{
	model.EntityReport:      "/reports/",
	model.EntitySchool:      "/schools/",
	model.EntityComment:     "/comments/",
	model.EntityApplication: "/applications/",
	model.EntityAgency:      "/agencies/",
	model.EntityComplaint:   "/complaints/",
	model.EntityUser:        "/users/",
}

// Path returns the application route an entity mention points at.
// The "schools" entity is the school list and ignores the id.
// Unknown entity types have no route and return "".
func Path(l model.Link) string {
	if l.EntityType == model.EntitySchools {
		return "/schools"
	}
	root, ok := entityRoots[l.EntityType]
	if !ok || l.ID == "" {
		return ""
	}
	return root + url.PathEscape(l.ID)
}

// Target returns the primary route for a notification: the first link
// with a route, else the most specific entity id it carries.
func Target(n model.Notification) string {
	for _, l := range n.Links {
		if p := Path(l); p != "" {
			return p
		}
	}

	fallbacks := []model.Link{
		{ID: n.CommentID, EntityType: model.EntityComment},
		{ID: n.ReportID, EntityType: model.EntityReport},
		{ID: n.ComplaintID, EntityType: model.EntityComplaint},
		{ID: n.ApplicationID, EntityType: model.EntityApplication},
		{ID: n.SchoolID, EntityType: model.EntitySchool},
		{ID: n.AgencyID, EntityType: model.EntityAgency},
		{ID: n.UserID, EntityType: model.EntityUser},
	}
	for _, l := range fallbacks {
		if p := Path(l); p != "" {
			return p
		}
	}
	return ""
}
