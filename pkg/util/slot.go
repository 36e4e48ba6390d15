package util

import "strings"

// SlotCount 哈希槽数量
const SlotCount = 16384

// hashTag 取 {tag} 作为哈希依据，同 tag 的键落在同一槽
func hashTag(key string) string {
	i := strings.IndexByte(key, '{')
	if i < 0 {
		return key
	}
	j := strings.IndexByte(key[i+1:], '}')
	if j <= 0 { // 无闭合或 "{}" 空标签
		return key
	}
	return key[i+1 : i+1+j]
}

func makeCRC16Table(poly uint16) [256]uint16 {
	var tab [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		tab[i] = crc
	}
	return tab
}

var crc16Tab = makeCRC16Table(0x1021)

// CRC16 CCITT(XMODEM) 校验
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = (crc << 8) ^ crc16Tab[byte(crc>>8)^b]
	}
	return crc
}

// HashSlot 键对应的槽位，用于连接分片
func HashSlot(key string) int {
	return int(CRC16([]byte(hashTag(key))) % SlotCount)
}
