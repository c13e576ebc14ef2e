// Package models defines the sample entity types served by tablestore and registers
// their descriptors. Users and Comments use plain sort keys; Comments carry the
// author in the local index. BlogPosts use composite "{UserID}#{ID}" sort keys and
// hold a rating aggregate.
package models
