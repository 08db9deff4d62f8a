package storage

// PutObjectAPI exports putObjectAPI for testing.
type PutObjectAPI = putObjectAPI

// NewS3PublisherWithClient exports newS3Publisher for testing.
var NewS3PublisherWithClient = newS3Publisher
