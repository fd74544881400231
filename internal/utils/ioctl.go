package utils

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// IOCtl はデバイスファイルに対して整数引数の ioctl を発行する
func IOCtl(f *os.File, request uintptr, arg uintptr) error {
	return ioctl(f.Fd(), request, arg)
}

// IOCtlPtr は構造体などへのポインタを引数に ioctl を発行する
func IOCtlPtr(f *os.File, request uintptr, arg unsafe.Pointer) error {
	return ioctl(f.Fd(), request, uintptr(arg))
}

func ioctl(fd uintptr, request uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, request, arg)
	if errno != 0 {
		return errno
	}
	return nil
}
