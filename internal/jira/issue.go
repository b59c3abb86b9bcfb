package jira

import "strings"

// Person is a user reference (creator, reporter, assignee).
type Person struct {
	AccountID    string
	DisplayName  string
	EmailAddress string
}

// Name returns the display name, falling back to the email address and then
// to "Unknown".
func (p Person) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.EmailAddress != "" {
		return p.EmailAddress
	}
	return "Unknown"
}

// ParentRef is the subset of an embedded parent issue needed to validate the
// hierarchy without fetching the parent.
type ParentRef struct {
	ID        string
	Key       string
	IssueType string
}

// Person reads a user reference field. A null or missing field returns false.
func (f *Fields) Person(key string) (Person, bool) {
	m := f.Map(key)
	if len(m) == 0 {
		return Person{}, false
	}
	return Person{
		AccountID:    asString(m["accountId"]),
		DisplayName:  asString(m["displayName"]),
		EmailAddress: asString(m["emailAddress"]),
	}, true
}

// Parent reads the embedded parent reference. An empty object counts as absent.
func (f *Fields) Parent() (*ParentRef, bool) {
	m := f.Map("parent")
	if len(m) == 0 {
		return nil, false
	}
	return &ParentRef{
		ID:        asString(m["id"]),
		Key:       asString(m["key"]),
		IssueType: asString(lookup(m, "fields", "issuetype", "name")),
	}, true
}

// IssueType returns fields.issuetype.name.
func (i Issue) IssueType() string {
	return i.Fields.LookupString("issuetype", "name")
}

// Status returns fields.status.name.
func (i Issue) Status() string {
	return i.Fields.LookupString("status", "name")
}

// Summary returns fields.summary.
func (i Issue) Summary() string {
	return i.Fields.String("summary")
}

// Created returns the raw fields.created timestamp.
func (i Issue) Created() string {
	return i.Fields.String("created")
}

// CreatedDate returns the YYYY-MM-DD part of fields.created.
func (i Issue) CreatedDate() string {
	created := i.Created()
	if idx := strings.IndexByte(created, 'T'); idx >= 0 {
		return created[:idx]
	}
	return created
}

// Parent returns the embedded parent reference, or nil.
func (i Issue) Parent() *ParentRef {
	p, _ := i.Fields.Parent()
	return p
}

// Assignee returns the assignee and whether one is set.
func (i Issue) Assignee() (Person, bool) {
	return i.Fields.Person("assignee")
}

// Creator returns the creator; an absent creator yields a zero Person.
func (i Issue) Creator() Person {
	p, _ := i.Fields.Person("creator")
	return p
}

// Reporter returns the reporter; an absent reporter yields a zero Person.
func (i Issue) Reporter() Person {
	p, _ := i.Fields.Person("reporter")
	return p
}

// ProjectKey returns fields.project.key.
func (i Issue) ProjectKey() string {
	return i.Fields.LookupString("project", "key")
}

// ProjectName returns fields.project.name.
func (i Issue) ProjectName() string {
	return i.Fields.LookupString("project", "name")
}
