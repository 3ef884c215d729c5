package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// BytesMD5 计算字节数组MD5
func BytesMD5(data []byte) string {
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}

// StringMD5 计算字符串MD5
func StringMD5(s string) string {
	return BytesMD5([]byte(s))
}
