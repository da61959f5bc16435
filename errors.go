/*
 * errors.go, part of gridfep.
 *
 * Copyright 2024 The gridfep developers.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package fep

import "fmt"

//Error is the interface for errors that all packages in this module
//implement. The Decorate method allows to add and retrieve info from the
//error, without changing its type or wrapping it around something else.
//The decorate slice should contain a list of functions in the calling
//stack, plus, for each function, any relevant information, or nothing.
type Error interface {
	Error() string
	Decorate(string) []string
}

//PathError is an Error that is tied to a specific file or simulation
//unit. Every extraction failure in this module carries the identity of
//the unit that produced it, so a batch caller can report it without
//re-deriving anything.
type PathError interface {
	Error
	Path() string
}

//ValidationError reports malformed or missing input data: a missing
//header, an empty table, a record-count mismatch, a missing description
//field, an empty index-set projection or a landmark mismatch. It always
//carries the offending path or identity.
type ValidationError struct {
	message string
	path    string
	deco    []string
}

//NewValidationError returns a ValidationError for the file or unit
//identified by path, already decorated with the caller's name.
func NewValidationError(message, path, caller string) *ValidationError {
	return &ValidationError{message: message, path: path, deco: []string{caller}}
}

func (err *ValidationError) Error() string {
	return fmt.Sprintf("invalid data in %s: %s", err.path, err.message)
}

//Decorate adds new information to the error, returning the current
//decoration. An empty string adds nothing.
func (err *ValidationError) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//Path returns the file or unit identity associated to the error.
func (err *ValidationError) Path() string { return err.path }

//InsufficientDataError reports structurally valid but too-small data on
//which statistics cannot proceed. The extraction core raises the more
//specific ValidationError; this type exists so downstream statistical
//consumers share the same taxonomy.
type InsufficientDataError struct {
	message string
	path    string
	deco    []string
}

//NewInsufficientDataError returns an InsufficientDataError for the unit
//identified by path, decorated with the caller's name.
func NewInsufficientDataError(message, path, caller string) *InsufficientDataError {
	return &InsufficientDataError{message: message, path: path, deco: []string{caller}}
}

func (err *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data in %s: %s", err.path, err.message)
}

//Decorate adds new information to the error, returning the current
//decoration. An empty string adds nothing.
func (err *InsufficientDataError) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//Path returns the file or unit identity associated to the error.
func (err *InsufficientDataError) Path() string { return err.path }

//InvalidResultError reports that a valid-shaped input yielded a logically
//invalid result, such as selecting a representative from an empty set.
type InvalidResultError struct {
	message string
	deco    []string
}

//NewInvalidResultError returns an InvalidResultError decorated with the
//caller's name.
func NewInvalidResultError(message, caller string) *InvalidResultError {
	return &InvalidResultError{message: message, deco: []string{caller}}
}

func (err *InvalidResultError) Error() string {
	return fmt.Sprintf("invalid result: %s", err.message)
}

//Decorate adds new information to the error, returning the current
//decoration. An empty string adds nothing.
func (err *InvalidResultError) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//IsValidation returns whether err is a ValidationError.
func IsValidation(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

//IsInsufficientData returns whether err is an InsufficientDataError.
func IsInsufficientData(err error) bool {
	_, ok := err.(*InsufficientDataError)
	return ok
}

//IsInvalidResult returns whether err is an InvalidResultError.
func IsInvalidResult(err error) bool {
	_, ok := err.(*InvalidResultError)
	return ok
}

//DecorateError asserts that err implements Error and decorates it with
//the caller's name before returning it. Errors of other types are
//returned unchanged.
func DecorateError(err error, caller string) error {
	if err2, ok := err.(Error); ok {
		err2.Decorate(caller)
		return err2
	}
	return err
}
