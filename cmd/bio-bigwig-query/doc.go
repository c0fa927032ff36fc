/*Command bio-bigwig-query reads a .bigWig or .bigBed file and prints
  every feature overlapping a genomic range to stdout.

  Usage: bio-bigwig-query -region chr1:100-200 foo.bigWig
*/
package main
