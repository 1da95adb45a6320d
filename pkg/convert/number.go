// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package convert implements conversions between numbers, strings and bytes.
package convert

import "encoding/binary"

// Int64ToBytes converts an int64 to a big-endian byte slice.
func Int64ToBytes(v int64) []byte {
	return Uint64ToBytes(uint64(v))
}

// BytesToInt64 converts a big-endian byte slice to an int64.
func BytesToInt64(b []byte) int64 {
	return int64(BytesToUint64(b))
}

// Uint64ToBytes converts an uint64 to a big-endian byte slice.
func Uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// BytesToUint64 converts a big-endian byte slice to an uint64.
func BytesToUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
