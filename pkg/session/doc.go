/*
Package session serializes access to conversation states.

A Manager keeps one in-process lock per conversation ID and, when a
DistributedLocker is configured, a lock shared by every replica. Turns for
the same conversation therefore never interleave, while different
conversations proceed in parallel.
*/
package session
