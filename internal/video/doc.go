// Package video implements the segment video container: a seekable sequence
// of losslessly compressed RGB grid frames.
//
// # File Format
//
//	Header (64 bytes):
//	  Magic       (4)  "TRJV"
//	  Version     (4)
//	  TileWidth   (4)
//	  TileHeight  (4)
//	  GridSize    (4)
//	  NumEnvs     (4)
//	  FPS         (4)
//	  Compression (1) + 3 padding
//	  Ordinal     (8)
//	  RunID       (16)
//	  Checksum    (4)  CRC32C of bytes [0,56)
//	  Reserved    (4)
//
//	Frame record, repeated:
//	  RawLen    (4)
//	  StoredLen (4)  0 = payload stored uncompressed (RawLen bytes)
//	  Checksum  (4)  CRC32C of the raw frame
//	  Payload
//
//	Footer, written by Close:
//	  Offsets   (8 x frames) absolute record offsets
//	  TableOff  (8)
//	  Frames    (4)
//	  TableCRC  (4)
//	  Magic     (4)  "TRJE"
//
// A file without a valid footer (the active segment, or one left behind by a
// crash) is still readable: the [Reader] rebuilds the offset table by
// scanning records and stops at the first truncated one.
package video
