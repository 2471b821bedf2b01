// Package common holds helpers shared by the command services: target
// resolution ("all" vs a named device), interactive prompts, table
// rendering and batch result reporting.
package common
