// Package projects provides project and stage management. Defects belong
// to a project and optionally to one of its stages.
package projects
